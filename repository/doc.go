// Package repository provides a generic document repository built on the
// MongoDB Go driver for inserts, deletes, filtered and paged queries,
// first/last lookups and timestamped updates, in blocking and asynchronous
// forms.
package repository
