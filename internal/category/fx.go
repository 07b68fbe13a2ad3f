package category

import (
	"github.com/saldotech/saldo/internal/category/repository"
	"github.com/saldotech/saldo/internal/category/service"
	"go.uber.org/fx"
)

var Module = fx.Module("category.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
