package router

import (
	"database/sql"
	"net/http"
	"os"

	mem "med-adherence/internal/adapters/storage/memory"
	pg "med-adherence/internal/adapters/storage/postgres"
	"med-adherence/internal/domain/caregivers"
	"med-adherence/internal/domain/doses"
	"med-adherence/internal/domain/drugs"
	"med-adherence/internal/domain/interactions"
	"med-adherence/internal/domain/medications"
	"med-adherence/internal/domain/scan"
	"med-adherence/internal/middleware"
	"med-adherence/internal/ports/auth"
	"med-adherence/internal/ports/drugref"
	"med-adherence/internal/ports/ocr"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Colaboradores externos opcionales; nil degrada al comportamiento local.
	DrugResolver drugref.Resolver
	OCRExtractor ocr.TextExtractor
}

// NewRouter arma el router completo y devuelve además el servicio de dosis,
// que main usa para correr el barrido periódico de missed sobre el mismo
// almacenamiento que sirve la API.
func NewRouter(opts Options) (http.Handler, *doses.Service) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	var (
		medsRepo   medications.Repository
		dosesRepo  doses.Repository
		drugsRepo  drugs.Repository
		grantsRepo caregivers.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		medsRepo = pg.NewMedicationsRepo(db)
		dosesRepo = pg.NewDosesRepo(db)
		drugsRepo = pg.NewDrugsRepo(db)
		grantsRepo = pg.NewCaregiversRepo(db)
	} else {
		medsRepo = mem.NewMedicationRepo()
		dosesRepo = mem.NewDoseRepo()
		drugsRepo = mem.NewDrugRepo()
		grantsRepo = mem.NewCaregiverGrantsRepo()
	}

	// Services por módulo
	medsSvc := medications.NewService(medsRepo)
	dosesSvc := doses.NewService(dosesRepo, medsSvc, doses.ConfigFromEnv())
	drugsSvc := drugs.NewService(drugsRepo, opts.DrugResolver)
	grantsSvc := caregivers.NewService(grantsRepo)
	interactionsSvc := interactions.NewService(medsSvc, drugsSvc)
	scanSvc := scan.NewService(drugsSvc, medsSvc, opts.OCRExtractor, scan.ConfigFromEnv())

	// Un cambio de regla o un borrado cancelan las dosis pendientes futuras.
	medsSvc.SetDoseCanceller(dosesSvc)

	// Rutas por módulo
	medications.RegisterRoutes(r, medsSvc, grantsSvc)
	doses.RegisterRoutes(r, dosesSvc, medsSvc, grantsSvc)
	drugs.RegisterRoutes(r, drugsSvc)
	interactions.RegisterRoutes(r, interactionsSvc)
	scan.RegisterRoutes(r, scanSvc)
	caregivers.RegisterRoutes(r, grantsSvc)

	return r, dosesSvc
}
