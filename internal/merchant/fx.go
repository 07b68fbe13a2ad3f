package merchant

import (
	"github.com/saldotech/saldo/internal/merchant/repository"
	"github.com/saldotech/saldo/internal/merchant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewResolver),
)
