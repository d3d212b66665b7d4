//go:build sqlite

package browser

const defaultKind = "sqlite"

func newSQLiteBrowser(path string) (Browser, error) {
	return NewSQLiteBrowser(path), nil
}
