// Package flows contains the orchestration behind every Engine credential
// operation.
//
// Each flow function (RunLogin, RunResetPassword, RunConfirmTOTPSetup, ...)
// accepts a typed dependency struct of function fields and performs no I/O of
// its own. Store access, hashing, token codecs, session issuance, audit and
// metrics are all reached through those fields; the Engine owns them.
//
// Flows hold no state between calls and must not import the root package.
package flows
