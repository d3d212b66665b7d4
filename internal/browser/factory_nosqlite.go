//go:build !sqlite

package browser

import "fmt"

const defaultKind = "memory"

func newSQLiteBrowser(_ string) (Browser, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}
