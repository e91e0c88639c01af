package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("registro nao encontrado")
	// ErrLockContention indica que outra transação segura o lock da linha.
	ErrLockContention = errors.New("lock ocupado por outra transacao")
	ErrDuplicado      = errors.New("violacao de unicidade")
	ErrNaoAutenticado = errors.New("nao autenticado")
	ErrLimiteExcedido = errors.New("limite de requisicoes excedido")
)

// LimiteExcedidoError informa quanto falta para a janela do limitador reabrir.
type LimiteExcedidoError struct {
	RetryAfter time.Duration
}

func (e *LimiteExcedidoError) Error() string {
	return fmt.Sprintf("%s: tente novamente em %s", ErrLimiteExcedido, e.RetryAfter)
}

func (e *LimiteExcedidoError) Is(target error) bool {
	return target == ErrLimiteExcedido
}
