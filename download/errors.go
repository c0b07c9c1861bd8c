package download

import "github.com/quasarmc/launchercore/errs"

func errNetwork() error {
	return errs.ErrNetwork
}

func newStatusError(url string, status int) error {
	return &errs.HTTPStatusError{URL: url, Status: status}
}
