// Comando seed popula o banco com os usuários, conselheiros e o tablet
// padrão do ambiente de demonstração. Idempotente: pode rodar mais de
// uma vez sem duplicar registros.
package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/auth"
	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/db"
	"github.com/portalconselheiros/portal/internal/device"
	"github.com/portalconselheiros/portal/internal/repo"
	"github.com/portalconselheiros/portal/internal/user"
)

type seedUser struct {
	email string
	senha string
	role  user.Role
}

var seedUsers = []seedUser{
	{"admin@senac.br", "admin123", user.RoleAdmin},
	{"moderador@senac.br", "moderador123", user.RoleModerator},
	{"tablet@senac.br", "tablet123", user.RolePresenter},
	{"telao@senac.br", "telao123", user.RoleViewer},
}

var seedConselheiros = []conselheiro.CreateParams{
	{Nome: "Maria Aparecida Santos", Email: ptr("maria.santos@senac.br"), Cargo: ptr("Presidente"), Instituicao: ptr("SENAC")},
	{Nome: "João Carlos Oliveira", Email: ptr("joao.oliveira@senac.br"), Cargo: ptr("Vice-Presidente"), Instituicao: ptr("FECOMÉRCIO")},
	{Nome: "Ana Paula Ferreira", Email: ptr("ana.ferreira@senac.br"), Cargo: ptr("Conselheira"), Instituicao: ptr("SESC")},
}

func ptr(s string) *string { return &s }

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	_ = godotenv.Load()

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		log.Fatal().Msg("defina DB_DSN ou DATABASE_URL")
	}

	if err := db.RunMigrations(dsn); err != nil {
		log.Fatal().Err(err).Msg("migrations falharam")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("não foi possível conectar ao banco")
	}
	defer pool.Close()

	users := user.NewRepository(pool)
	conselheiros := conselheiro.NewRepository(pool)
	devices := device.NewRepository(pool)

	var admin user.User
	for _, su := range seedUsers {
		hash, err := auth.Hash(su.senha)
		if err != nil {
			log.Fatal().Err(err).Msg("hash de senha falhou")
		}

		u, err := users.Upsert(ctx, su.email, hash, su.role)
		if err != nil {
			log.Fatal().Err(err).Str("email", su.email).Msg("não foi possível criar usuário")
		}
		if su.role == user.RoleAdmin {
			admin = u
		}
		log.Info().Str("email", u.Email).Str("role", string(u.Role)).Msg("usuário pronto")
	}

	for _, c := range seedConselheiros {
		created, err := conselheiros.Insert(ctx, c)
		if err != nil {
			if errors.Is(err, repo.ErrConflict) {
				log.Info().Str("nome", c.Nome).Msg("conselheiro já cadastrado")
				continue
			}
			log.Fatal().Err(err).Str("nome", c.Nome).Msg("não foi possível criar conselheiro")
		}
		log.Info().Str("nome", created.Nome).Msg("conselheiro criado")
	}

	autorizado := true
	modelo := "Samsung Galaxy Tab S9"
	if _, err := devices.Insert(ctx, device.CreateParams{
		DeviceID:    "tablet-senac-001",
		Modelo:      &modelo,
		Autorizado:  &autorizado,
		OwnerUserID: &admin.ID,
	}); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			log.Info().Msg("tablet já cadastrado")
		} else {
			log.Fatal().Err(err).Msg("não foi possível cadastrar o tablet")
		}
	} else {
		log.Info().Str("device_id", "tablet-senac-001").Msg("tablet cadastrado")
	}

	log.Info().Msg("seed concluído")
}
