// Package postconf wraps the postconf command line utility.
//
// The adapter models Postfix's main.cf as a key/value store: reads run
// postconf as a subprocess and parse its single-line output, writes are
// staged in memory and flushed in one batched edit invocation. Every
// invocation propagates the configured configuration root so reads and
// writes always act on the same main.cf.
package postconf
