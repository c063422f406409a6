package session

import (
	"errors"

	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRegistration       = errors.New("registration failed")
	ErrProfileUpdate      = errors.New("profile update failed")
	ErrPasswordChange     = errors.New("password change failed")
	ErrValidation         = errors.New("validation")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
)

const (
	MsgSessionExpired     = "Sesión expirada o inválida"
	MsgInvalidCredentials = "Credenciales incorrectas"
	MsgRegistration       = "Error al registrar usuario"
	MsgProfileUpdate      = "Error al actualizar perfil"
	MsgPasswordChange     = "Error al cambiar la contraseña"
	MsgPasswordMismatch   = "Las contraseñas no coinciden"
	MsgNotAuthenticated   = "Debes iniciar sesión"

	MsgLoggedIn        = "Inicio de sesión exitoso"
	MsgRegistered      = "Registro exitoso"
	MsgLoggedOut       = "Sesión cerrada"
	MsgProfileUpdated  = "Perfil actualizado correctamente"
	MsgPasswordChanged = "Contraseña actualizada correctamente"
)

// UserMessage maps a session error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPasswordMismatch):
		return MsgPasswordMismatch
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrRegistration):
		return MsgRegistration
	case errors.Is(err, ErrProfileUpdate):
		return MsgProfileUpdate
	case errors.Is(err, ErrPasswordChange):
		if msg := apiclient.MessageOf(err); msg != "" {
			return msg
		}
		return MsgPasswordChange
	case errors.Is(err, ErrNotAuthenticated):
		return MsgNotAuthenticated
	case errors.Is(err, ErrSessionExpired):
		return MsgSessionExpired
	}
	return ""
}
