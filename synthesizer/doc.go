// Package synthesizer builds APM segments and transactions for started spans.
//
// The matched rule's type selects one of six builders:
//
//   - server and consumer spans start a transaction, unless one is already active in
//     which case they become internal segments
//   - producer spans are named from the rule's segment name template
//   - external spans are named from their host and obfuscated URL path
//   - db spans are named from collection and operation, a classified SQL statement,
//     the operation alone or the system alone, in that order of preference
//   - internal spans take the span's name
//
// Builders never fail on malformed attributes. Missing values degrade to "Unknown" or
// are left out.
package synthesizer
