// Package mem defines the physical/virtual address types, the page size,
// and the physical frame allocator for the Sv39 address-space layout.
package mem

// PageShift is the base-2 exponent of the page size.
const PageShift = 12

// PageSize is the size in bytes of one physical/virtual page.
const PageSize = 1 << PageShift

// PageOffsetMask masks the in-page offset out of an address.
const PageOffsetMask = PageSize - 1

// VpnBits is the width in bits of each Sv39 page-table index.
const VpnBits = 9

// VpnMask masks out a single 9-bit page-table index.
const VpnMask = (1 << VpnBits) - 1

// SatpModeSv39 is the mode field written into satp's top 4 bits to select
// Sv39 paging.
const SatpModeSv39 = 8
