package cart

import "errors"

var (
	ErrValidation = errors.New("validation")
	ErrNoOwner    = errors.New("no cart owner")
	ErrCartLoad   = errors.New("cart load failed")
	ErrCartAdd    = errors.New("cart add failed")
	ErrCartUpdate = errors.New("cart update failed")
	ErrCartRemove = errors.New("cart remove failed")
	ErrCartClear  = errors.New("cart clear failed")
)

const (
	MsgNoOwner    = "Inicia sesión para usar el carrito"
	MsgValidation = "La cantidad debe ser al menos 1"
	MsgLoad       = "No se pudo cargar el carrito"
	MsgAdd        = "Error al añadir producto al carrito"
	MsgUpdate     = "Error al actualizar el carrito"
	MsgRemove     = "Error al eliminar producto del carrito"
	MsgClear      = "Error al limpiar el carrito"

	MsgAdded   = "Producto añadido al carrito"
	MsgUpdated = "Carrito actualizado"
	MsgRemoved = "Producto eliminado del carrito"
	MsgCleared = "Carrito limpiado"
)

func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoOwner):
		return MsgNoOwner
	case errors.Is(err, ErrValidation):
		return MsgValidation
	case errors.Is(err, ErrCartLoad):
		return MsgLoad
	case errors.Is(err, ErrCartAdd):
		return MsgAdd
	case errors.Is(err, ErrCartUpdate):
		return MsgUpdate
	case errors.Is(err, ErrCartRemove):
		return MsgRemove
	case errors.Is(err, ErrCartClear):
		return MsgClear
	}
	return ""
}
