// Command data runs the data tier (service-c) of the service chain.
package main

import (
	"github.com/tracechain/tracechain/internal/app"
	"github.com/tracechain/tracechain/internal/config"
)

func main() {
	app.Main(config.TierData)
}
