package postgres

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marcelojr/sorteios-tv/internal/domain"
	"github.com/marcelojr/sorteios-tv/internal/platform/migrations"
)

// setupSQLite cria um banco em memória por teste com o schema das migrations.
func setupSQLite(t *testing.T) *gorm.DB {
	nome := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", nome)), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, migrations.Run(db))
	return db
}

func criarPromocao(t *testing.T, db *gorm.DB, nome string, ganhadores int) domain.Promocao {
	agora := time.Now().UTC()
	p := domain.Promocao{
		Nome:             nome,
		Slug:             strings.ToLower(strings.ReplaceAll(nome, " ", "-")),
		DataInicio:       agora.Add(-24 * time.Hour),
		DataFim:          agora.Add(24 * time.Hour),
		Status:           domain.StatusAtiva,
		NumeroGanhadores: ganhadores,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func criarParticipantes(t *testing.T, db *gorm.DB, promocaoID domain.PromocaoID, nomes ...string) []domain.Participante {
	result := make([]domain.Participante, 0, len(nomes))
	for i, nome := range nomes {
		p := domain.Participante{
			PromocaoID: promocaoID,
			Nome:       nome,
			Telefone:   fmt.Sprintf("6999%07d", i),
			Bairro:     "Centro",
			Cidade:     "Porto Velho",
		}
		require.NoError(t, db.Create(&p).Error)
		result = append(result, p)
	}
	return result
}

func criarGanhador(t *testing.T, db *gorm.DB, promocaoID domain.PromocaoID, participanteID domain.ParticipanteID, sorteio domain.SorteioID, posicao int) domain.Ganhador {
	g := domain.Ganhador{
		SorteioID:      sorteio,
		PromocaoID:     promocaoID,
		ParticipanteID: participanteID,
		Posicao:        posicao,
		Premio:         fmt.Sprintf("%d place", posicao),
		SorteadoEm:     time.Now().UTC(),
		SorteadoPor:    1,
	}
	require.NoError(t, db.Create(&g).Error)
	return g
}
