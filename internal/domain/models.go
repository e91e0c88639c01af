package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type (
	PromocaoID     uint
	ParticipanteID uint
	GanhadorID     uint
	UsuarioID      uint
	SorteioID      string
)

type StatusPromocao string

const (
	StatusAtiva     StatusPromocao = "active"
	StatusEncerrada StatusPromocao = "closed"
)

const (
	RoleAdmin     = "admin"
	RoleModerador = "moderator"
	RoleViewer    = "viewer"
)

// Acoes registradas na trilha de auditoria.
const (
	AcaoSorteioRealizado  = "SORTEIO_REALIZADO"
	AcaoGanhadorCancelado = "GANHADOR_CANCELADO"
)

type Promocao struct {
	ID               PromocaoID     `gorm:"column:id;primaryKey;autoIncrement"`
	Nome             string         `gorm:"column:nome;type:text;not null"`
	Slug             string         `gorm:"column:slug;type:text;uniqueIndex"`
	Descricao        string         `gorm:"column:descricao;type:text"`
	DataInicio       time.Time      `gorm:"column:data_inicio"`
	DataFim          time.Time      `gorm:"column:data_fim"`
	Status           StatusPromocao `gorm:"column:status;type:varchar(16);not null;default:active;index"`
	NumeroGanhadores int            `gorm:"column:numero_ganhadores;not null;default:1"`
	Sorteando        bool           `gorm:"column:is_drawing;not null;default:false"`
	CriadoEm         time.Time      `gorm:"column:criado_em;autoCreateTime"`
	AtualizadoEm     time.Time      `gorm:"column:atualizado_em;autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// Participante tem telefone único por promoção entre os registros não excluídos;
// o índice parcial é criado na migration.
type Participante struct {
	ID         ParticipanteID `gorm:"column:id;primaryKey;autoIncrement"`
	PromocaoID PromocaoID     `gorm:"column:promocao_id;not null;index"`
	Nome       string         `gorm:"column:nome;type:text;not null"`
	Telefone   string         `gorm:"column:telefone;type:varchar(32);not null"`
	Bairro     string         `gorm:"column:bairro;type:text"`
	Cidade     string         `gorm:"column:cidade;type:text"`
	CriadoEm   time.Time      `gorm:"column:criado_em;autoCreateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

type Ganhador struct {
	ID             GanhadorID     `gorm:"column:id;primaryKey;autoIncrement"`
	SorteioID      SorteioID      `gorm:"column:sorteio_id;type:char(26);not null;index"`
	PromocaoID     PromocaoID     `gorm:"column:promocao_id;not null;index"`
	ParticipanteID ParticipanteID `gorm:"column:participante_id;not null;index"`
	Posicao        int            `gorm:"column:posicao;not null"`
	Premio         string         `gorm:"column:premio;type:text;not null"`
	SorteadoEm     time.Time      `gorm:"column:sorteado_em;not null"`
	SorteadoPor    UsuarioID      `gorm:"column:sorteado_por;not null"`
	Cancelado      bool           `gorm:"column:cancelado;not null;default:false"`
	CanceladoEm    *time.Time     `gorm:"column:cancelado_em"`
}

type AuditLog struct {
	ID              uint           `gorm:"column:id;primaryKey;autoIncrement"`
	EventoID        string         `gorm:"column:evento_id;type:varchar(36);not null;uniqueIndex"`
	UsuarioID       UsuarioID      `gorm:"column:usuario_id;not null;index"`
	Acao            string         `gorm:"column:acao;type:varchar(64);not null;index"`
	Tabela          string         `gorm:"column:tabela;type:varchar(64);not null"`
	RegistroID      uint           `gorm:"column:registro_id;not null"`
	DadosAdicionais datatypes.JSON `gorm:"column:dados_adicionais"`
	IP              string         `gorm:"column:ip;type:varchar(64)"`
	CriadoEm        time.Time      `gorm:"column:criado_em;not null;index"`
}

type Usuario struct {
	ID       UsuarioID `gorm:"column:id;primaryKey;autoIncrement"`
	Usuario  string    `gorm:"column:usuario;type:varchar(128);not null;uniqueIndex"`
	Role     string    `gorm:"column:role;type:varchar(32);not null"`
	CriadoEm time.Time `gorm:"column:criado_em;autoCreateTime"`
}

// Principal é a identidade já verificada pelo autenticador.
type Principal struct {
	ID      UsuarioID
	Usuario string
	Role    string
}

type GanhadorSorteado struct {
	GanhadorID     GanhadorID     `json:"ganhador_id"`
	ParticipanteID ParticipanteID `json:"id"`
	Nome           string         `json:"nome"`
	Telefone       string         `json:"telefone"`
	Bairro         string         `json:"bairro"`
	Posicao        int            `json:"posicao"`
	Premio         string         `json:"premio"`
}

type ResultadoSorteio struct {
	SorteioID  SorteioID          `json:"sorteio_id"`
	PromocaoID PromocaoID         `json:"promocao_id"`
	Ganhadores []GanhadorSorteado `json:"ganhadores"`
	SorteadoEm time.Time          `json:"sorteado_em"`
}

// GanhadorDetalhe é a leitura de um ganhador com os dados do participante.
type GanhadorDetalhe struct {
	GanhadorID     GanhadorID     `json:"ganhador_id"`
	SorteioID      SorteioID      `json:"sorteio_id"`
	PromocaoID     PromocaoID     `json:"promocao_id"`
	ParticipanteID ParticipanteID `json:"participante_id"`
	Nome           string         `json:"participante_nome"`
	Telefone       string         `json:"participante_telefone"`
	Bairro         string         `json:"participante_bairro"`
	Cidade         string         `json:"participante_cidade"`
	Posicao        int            `json:"posicao"`
	Premio         string         `json:"premio"`
	SorteadoEm     time.Time      `json:"sorteado_em"`
}

type PromocaoEncerrada struct {
	ID               PromocaoID        `json:"id"`
	Nome             string            `json:"nome"`
	Slug             string            `json:"slug"`
	DataInicio       time.Time         `json:"data_inicio"`
	DataFim          time.Time         `json:"data_fim"`
	NumeroGanhadores int               `json:"numero_ganhadores"`
	Ganhadores       []GanhadorDetalhe `json:"ganhadores"`
}

type Estatisticas struct {
	TotalSorteios       int64 `json:"total_sorteios"`
	TotalGanhadores     int64 `json:"total_ganhadores"`
	PromocoesComSorteio int64 `json:"promocoes_com_sorteio"`
	// UltimoSorteio vem só do banco; os contadores do Redis não guardam datas.
	UltimoSorteio *time.Time `json:"ultimo_sorteio,omitempty"`
}

// EventoSorteio trafega pela fila depois do commit de um sorteio.
type EventoSorteio struct {
	SorteioID       SorteioID  `json:"sorteio_id"`
	PromocaoID      PromocaoID `json:"promocao_id"`
	TotalGanhadores int        `json:"total_ganhadores"`
	SorteadoPor     UsuarioID  `json:"sorteado_por"`
	SorteadoEm      time.Time  `json:"sorteado_em"`
}

func (Promocao) TableName() string { return "promocoes" }

func (Participante) TableName() string { return "participantes" }

func (Ganhador) TableName() string { return "ganhadores" }

func (AuditLog) TableName() string { return "audit_logs" }

func (Usuario) TableName() string { return "usuarios" }
