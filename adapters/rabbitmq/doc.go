/*
Package rabbitmq relays integration events to a RabbitMQ exchange.
The event topic becomes the routing key. NewWithAMQPConn runs an auto-reconnect
publisher onto a durable topic exchange; NewWithAMQPChannel reuses a caller-owned
channel. Tracing headers can be injected with a bus.HeaderPropagator.
*/
package rabbitmq
