// Package tallyv1 defines the tally.v1.TotalsService gRPC contract.
//
// Messages are protobuf well-known types: submissions carry a
// wrapperspb.UInt32Value, responses and watch requests a structpb.Struct
// whose fields are described by the helpers in messages.go.
package tallyv1
