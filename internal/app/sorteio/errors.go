package sorteio

import (
	"errors"
	"fmt"
)

var (
	ErrPromocaoInvalida           = errors.New("id da promocao invalido")
	ErrPromocaoNaoEncontrada      = errors.New("promocao nao encontrada")
	ErrSorteioEmAndamento         = errors.New("sorteio em andamento para esta promocao")
	ErrLockOcupado                = errors.New("outro sorteio esta sendo executado para esta promocao, tente novamente em instantes")
	ErrPromocaoEncerrada          = errors.New("promocao ja encerrada")
	ErrSemParticipantes           = errors.New("nenhum participante disponivel para sorteio")
	ErrParticipantesInsuficientes = errors.New("participantes insuficientes para o numero de ganhadores")
	ErrNaoAutorizado              = errors.New("acesso nao autorizado para esta funcionalidade")
	ErrLimiteSorteios             = errors.New("limite de sorteios excedido")
	ErrGanhadorNaoEncontrado      = errors.New("ganhador nao encontrado ou ja cancelado")
	ErrFalhaInterna               = errors.New("falha interna ao processar sorteio")
)

// ParticipantesInsuficientesError carrega as contagens que o operador precisa ver.
// Com zero disponíveis também satisfaz errors.Is(err, ErrSemParticipantes).
type ParticipantesInsuficientesError struct {
	Disponiveis int
	Necessarios int
}

func (e *ParticipantesInsuficientesError) Error() string {
	if e.Disponiveis == 0 {
		return ErrSemParticipantes.Error()
	}
	return fmt.Sprintf("%s: %d disponiveis, %d necessarios", ErrParticipantesInsuficientes, e.Disponiveis, e.Necessarios)
}

func (e *ParticipantesInsuficientesError) Is(target error) bool {
	switch target {
	case ErrParticipantesInsuficientes:
		return e.Disponiveis > 0
	case ErrSemParticipantes:
		return e.Disponiveis == 0
	}
	return false
}

// errosDeNegocio são devolvidos sem embrulho em ErrFalhaInterna.
var errosDeNegocio = []error{
	ErrPromocaoInvalida,
	ErrPromocaoNaoEncontrada,
	ErrSorteioEmAndamento,
	ErrLockOcupado,
	ErrPromocaoEncerrada,
	ErrSemParticipantes,
	ErrParticipantesInsuficientes,
	ErrNaoAutorizado,
	ErrLimiteSorteios,
	ErrGanhadorNaoEncontrado,
}

func erroDeNegocio(err error) bool {
	for _, alvo := range errosDeNegocio {
		if errors.Is(err, alvo) {
			return true
		}
	}
	return false
}
