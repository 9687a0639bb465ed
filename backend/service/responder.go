//go:generate go run go.uber.org/mock/mockgen -source=responder.go -destination=../mocks/mock_responder.go -package=mocks
package service

import "context"

// Responder is the external AI service.
type Responder interface {
	Ask(ctx context.Context, prompt string) (string, error)
}
