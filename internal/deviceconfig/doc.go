// Package deviceconfig fetches configuration documents from an EmpirBus
// controller's built-in web server.
//
// Two documents are served next to the websocket endpoint:
//
//   - /configuration/hardware-config.json: the full hardware config, listing
//     every output and its signal ids
//   - /schema.json: the UI schema, whose "hardware" object carries a subset
//     of the same outputs
//
// # Usage Example
//
//	client := deviceconfig.NewClient("192.168.1.1")
//
//	hw, err := client.FetchHardwareConfig(ctx)
//	if err != nil {
//	    fmt.Println(deviceconfig.GetTroubleshootingHint(err))
//	    return err
//	}
//
// Client implements autosub.Loader, so it can be handed straight to the
// auto-subscriber to prefer the full hardware config over the schema.
//
// # Retries
//
// Network failures and 5xx responses are retried with exponential backoff
// (github.com/cenkalti/backoff). 4xx responses and malformed documents fail
// immediately. Errors are *FetchError values classified by ErrorType.
//
// # Caching
//
// The hardware config is cached for CacheDuration (30s by default). Use
// InvalidateCache to force a refetch.
package deviceconfig
