package llm

import (
	"github.com/saldotech/saldo/internal/embedding"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("llm.client",
	fx.Provide(New),
	fx.Provide(func(c *Client) merchantdomain.Enricher { return c }),
	fx.Provide(func(c *Client) embedding.Vectorizer { return c }),
)
