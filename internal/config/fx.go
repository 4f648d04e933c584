package config

import "go.uber.org/fx"

// Module provides the environment config and the hot-reloadable posting policies.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPostingPolicyHolder),
)
