package drugref

import "context"

// Result es una identidad de droga devuelta por el dataset externo.
type Result struct {
	ID          string
	Name        string
	GenericName string
	BrandNames  []string
	Category    string
}

// Resolver consulta el dataset de referencia de drogas (colaborador externo).
type Resolver interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
