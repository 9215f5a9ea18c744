// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// capsession (client authentication session) provides a collection of related
// packages which drive the login session of an interactive client: a pure
// session state machine, the views selected from it, an event loop and
// Authenticators for OIDC providers and Amazon Cognito user pools.
//
// See README.md
package capsession
