package auth

import (
	"errors"

	"clientportal/internal/database"
)

const (
	MsgInvalidCredentials = "Email ou senha incorretos."
	MsgEmailTaken         = "Este email já está cadastrado."
	MsgWeakPassword       = "A senha deve ter pelo menos 6 caracteres."
	MsgGeneric            = "Ocorreu um erro. Tente novamente."
)

// LocalizeError turns an auth failure into the Portuguese message shown to
// the user.
func LocalizeError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, database.ErrEmailTaken):
		return MsgEmailTaken
	case errors.Is(err, ErrWeakPassword):
		return MsgWeakPassword
	default:
		return MsgGeneric
	}
}
