package browser

import "fmt"

func NewBrowser(kind, sqlitePath string) (Browser, error) {
	switch kind {
	case "", "memory":
		return NewMemoryBrowser(), nil
	case "sqlite":
		return newSQLiteBrowser(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported browser backend: %s", kind)
	}
}

func DefaultBrowserKind() string {
	return defaultKind
}

func CloseIfSupported(b Browser) error {
	closer, ok := b.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
