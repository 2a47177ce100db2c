package models

import "github.com/pkg/errors"

var ErrNotFound = errors.New("record not found")
