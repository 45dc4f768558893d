/*
Package ssh is the SSH transport of the daemon.

It accepts connections with golang.org/x/crypto/ssh, authenticates users by
password, and serves "session" channels. Channel requests are decoded here:

  - pty-req publishes TERM, COLUMNS, LINES and the negotiated mode table
  - env sets a session variable
  - window-change updates COLUMNS and LINES and raises WINCH
  - signal is relayed to the session's signal listeners
  - shell starts a bridge.Session wired to the channel streams

exec and subsystem requests are refused. When the shell goes away the channel
receives an exit-status request and is closed.
*/
package ssh
