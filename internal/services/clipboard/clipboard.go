// Package clipboard copies rendered trees to the system clipboard.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports a host without a usable clipboard utility.
var ErrUnavailable = errors.New("no clipboard utility available")

// Copier receives the complete rendered output of a tree invocation.
type Copier interface {
	Copy(text string) error
}

// Service writes to the system clipboard through github.com/atotto/clipboard.
type Service struct{}

// NewService returns the system clipboard Copier.
func NewService() *Service {
	return &Service{}
}

// Copy replaces the clipboard contents with text.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}

var _ Copier = (*Service)(nil)
