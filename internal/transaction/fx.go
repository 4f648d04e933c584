package transaction

import (
	"github.com/heraerp/heracore/internal/transaction/service"
	"go.uber.org/fx"
)

// Module wires the transaction ledger service.
var Module = fx.Module("transaction",
	fx.Provide(service.NewService),
)
