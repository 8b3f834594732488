// Package cef parses, builds and queries Common Event Format log lines.
//
// # Wire format
//
//	[<Mon> <DD> <HH:MM:SS> <hostname> ]CEF:<Version>|<Vendor>|<Product>|<DevVersion>|<EventClassID>|<Name>|<Severity>|[<key>=<value> ]*
//
// A literal pipe inside a header field is written as \| and a literal equals
// sign inside an extension value as \=.
//
// # Types
//
//   - Message is an immutable parsed line. New values come from ParseLine,
//     CreateLine or Message.Replace; nothing mutates a Message in place.
//   - Log is an ordered, single-writer collection of Messages. Every Message
//     in a Log agrees on whether it carries a syslog prefix, and prefixed
//     Logs stay sorted by timestamp.
//
// Syslog prefixes carry no year. Timestamps are resolved against the current
// year of a Clock and moved back one year when that would put them in the
// future.
package cef
