// Package toolchain indexes registered toolchain instances by toolchain type
// and answers compatibility queries against candidate execution platforms.
// Registration order is preserved and drives tie-breaking: when several
// instances of a type are compatible, the first one registered wins.
package toolchain
