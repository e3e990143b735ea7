// Package client provides the `tally` command-line client.
//
// The CLI talks to the Tally gRPC endpoint to submit values, read the
// running total and watch committed events from a terminal. It also mints
// development tokens from the server's shared secret.
//
// Installation
//
//	go install github.com/rzbill/tally/cmd/tally@latest
//
// # Address and credentials
//
// The gRPC address is read from TALLY_GRPC (default 127.0.0.1:50051). The
// bearer token comes from --token or TALLY_TOKEN.
//
// Usage
//
//	export TALLY_TOKEN=$(tally token --subject alice --config tally.yaml)
//	tally submit 10
//	tally total
//	tally watch --from earliest --filter 'total > 20'
package client
