// Package wallet owns the lifecycle of the connection between the application
// and an external EIP-1193 wallet provider.
//
// A Manager moves a single session through idle, connecting, connected and
// error. Connect asks the provider for an account, makes sure the wallet is on
// the target chain (registering it when the wallet does not know it) and
// builds a ledger client bound to the approved account. While a session is
// connected the manager listens to provider events and disconnects when the
// account or chain changes underneath it or the provider goes away.
//
// A "was connected" marker is persisted so the next start can reconnect
// silently through Restore. All mutation goes through Manager methods;
// consumers read Snapshot or receive changes from Subscribe.
package wallet
