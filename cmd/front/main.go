// Command front runs the front tier (service-a) of the service chain.
package main

import (
	"github.com/tracechain/tracechain/internal/app"
	"github.com/tracechain/tracechain/internal/config"
)

func main() {
	app.Main(config.TierFront)
}
