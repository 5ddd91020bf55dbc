package principal

import "errors"

var (
	ErrNotFound      = errors.New("principal: not found")
	ErrAlreadyExists = errors.New("principal: already exists")
)
