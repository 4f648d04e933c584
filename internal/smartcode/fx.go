package smartcode

import "go.uber.org/fx"

var Module = fx.Module("smartcode",
	fx.Provide(NewRegistry),
)
