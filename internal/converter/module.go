package converter

import "go.uber.org/fx"

// Module provides the conversion façade dependencies
var Module = fx.Module("converter",
	fx.Provide(
		NewConverter,
		NewAdjuster,
	),
)
