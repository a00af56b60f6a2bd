package ports

// Hasher computes content digests.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// CalcHash returns a stable digest of data. The same bytes always hash to the same string.
	CalcHash(data []byte) string

	// HashFile reads the file at path and returns the digest of its content.
	HashFile(path string) (string, error)
}
