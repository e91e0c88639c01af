// Pacote migrations centraliza as versões gormigrate aplicadas na inicialização.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// Índices parciais valem em Postgres e SQLite; GORM não os gera pelas tags.
var indicesParciais = []struct {
	nome string
	sql  string
}{
	{
		nome: "ux_participantes_promocao_telefone",
		sql:  "CREATE UNIQUE INDEX IF NOT EXISTS ux_participantes_promocao_telefone ON participantes (promocao_id, telefone) WHERE deleted_at IS NULL",
	},
	{
		nome: "ux_ganhadores_promocao_participante",
		sql:  "CREATE UNIQUE INDEX IF NOT EXISTS ux_ganhadores_promocao_participante ON ganhadores (promocao_id, participante_id) WHERE cancelado = false",
	},
}

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202501150001_init_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&domain.Usuario{},
					&domain.Promocao{},
					&domain.Participante{},
					&domain.Ganhador{},
					&domain.AuditLog{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("audit_logs", "ganhadores", "participantes", "promocoes", "usuarios")
			},
		},
		{
			ID: "202501150002_indices_parciais",
			Migrate: func(tx *gorm.DB) error {
				for _, idx := range indicesParciais {
					if err := tx.Exec(idx.sql).Error; err != nil {
						return fmt.Errorf("indice %s: %w", idx.nome, err)
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				for _, idx := range indicesParciais {
					if err := tx.Exec("DROP INDEX IF EXISTS " + idx.nome).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: falha ao aplicar: %w", err)
	}

	return nil
}
