package drugs

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Identity, error)
	// GetByName busca por nombre exacto (case-insensitive, contra name,
	// generic_name y brand_names).
	GetByName(ctx context.Context, name string) (Identity, error)
	List(ctx context.Context) ([]Identity, error)
	Search(ctx context.Context, query string, limit int) ([]Identity, error)
	// InteractionBetween devuelve la regla para el par no-ordenado (a, b).
	// Si no hay interacción conocida, severity none y ok=false.
	InteractionBetween(ctx context.Context, drugIDA, drugIDB string) (InteractionRule, bool, error)
}
