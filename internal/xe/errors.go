package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams    = orz.NewError(10400, "invalid parameters")
	ErrInvalidToken     = orz.NewError(10403, "invalid token")
	ErrPermissionDenied = orz.NewError(10401, "you are not allowed to view or modify this data")

	ErrAccountAlreadyUsed = orz.NewError(10000, "account already in use")
	ErrIncorrectPassword  = orz.NewError(10001, "incorrect username or password")
	ErrAlreadyInitialized = orz.NewError(10002, "system already initialized")

	ErrBatchNotFound  = orz.NewError(10010, "reconciliation batch not found")
	ErrBatchRunning   = orz.NewError(10011, "reconciliation batch is still running")
	ErrEmptyBatchFile = orz.NewError(10012, "uploaded batch file is empty")
)
