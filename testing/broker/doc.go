/*
Package broker runs a message broker in a container for the length of an integration
test.

The Driver holds at most one container. Start runs it, mapping the broker port to an
ephemeral host port, and polls the container log for the broker's ready line. Pause
kills the container but remembers its host port, so the next Start binds the same
port again and clients configured with the old address reconnect. Kill forgets the
port, so the next Start gets a fresh one.

The container runtime sits behind the Runtime interface. Docker talks to the Docker
Engine API.
*/
package broker
