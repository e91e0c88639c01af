package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/marcelojr/sorteios-tv/internal/domain"
)

// UsuarioRepository só lê; contas são geridas fora deste serviço.
type UsuarioRepository struct {
	db *gorm.DB
}

func NewUsuarioRepository(db *gorm.DB) *UsuarioRepository {
	return &UsuarioRepository{db: db}
}

func (r *UsuarioRepository) FindByID(ctx context.Context, id domain.UsuarioID) (domain.Usuario, error) {
	var usuario domain.Usuario
	if err := r.db.WithContext(ctx).Take(&usuario, "id = ?", id).Error; err != nil {
		if err = traduzirErro(err); err == domain.ErrNotFound {
			return domain.Usuario{}, err
		}
		return domain.Usuario{}, fmt.Errorf("gorm usuario: buscar id: %w", err)
	}
	return usuario, nil
}

var _ domain.UsuarioRepository = (*UsuarioRepository)(nil)
