/*
Package rdb holds the RDB snapshot a master ships to a replica after
FULLRESYNC.

The server keeps no durable state, so the only snapshot it ever sends is the
empty one: a valid RDB header, version 11, with no keys. It goes on the wire
as "$<len>\r\n<bytes>" with no trailing terminator.
*/
package rdb
