// Package arena implements a region allocator for small, short-lived
// allocations on the request hot path. An arena owns a chain of fixed-size
// blocks that serve word-aligned or raw byte allocations with a bump
// cursor; requests larger than MaxAllocFromPool bypass the blocks and are
// tracked on a side list so they can be released individually. The whole
// arena is released at once, or reset in place for reuse when it never
// grew past its first block.
//
// Arenas are single-owner; they are not safe for concurrent use.
package arena
