package embedding

import "go.uber.org/fx"

var Module = fx.Module("embedding.generator",
	fx.Provide(New),
)
