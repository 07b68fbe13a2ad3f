package transaction

import (
	"github.com/saldotech/saldo/internal/transaction/repository"
	"github.com/saldotech/saldo/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
