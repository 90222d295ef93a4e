// Package domain models the military welfare mart catalog and its geocoding
// vocabulary.
//
// # Data Source
//
// Catalog rows come from the national open data API table
// TB_MND_MART_CURRENT. Each row describes one store:
//
//	SEQ         stable integer identity, carried into CatalogEntry.ID
//	MART        store name
//	SCALE       store size class, e.g. "대형" or "소형"
//	OP_WEEKDAY  weekday opening hours, free text
//	OP_SAT      Saturday opening hours
//	OP_SUN      Sunday opening hours
//	NOTE        free-text remarks
//	TEL         phone number
//	LOC         raw street address, the only geocoding input
//
// The API does not carry coordinates. They are produced by the batch
// geocoding pipeline and persisted in the snapshot file, or resolved lazily
// at request time.
//
// # Entry Conventions
//
// Hours are flattened to a single display string:
//
//	"평일: 09:00-18:00, 토: 09:00-13:00, 일: 휴무"
//
// Description joins size class and remarks with " / ". Access level defaults
// to YELLOW because the source has no access information.
//
// # Coordinates
//
// A coordinate is either fully known (both lat and lng) or absent. Snapshot
// JSON flattens it to optional top-level "lat" and "lng" fields; a record
// carrying only one of them decodes as unresolved.
//
// Once an entry has coordinates they are only replaced through an explicit
// refresh. A raw re-fetch of the source never clears them.
//
// # Address Simplification
//
// Korean road addresses often carry building, floor, or unit suffixes that
// the provider cannot match ("서울특별시 용산구 한강대로 42 3층"). The
// fallback query keeps the first three whitespace-separated tokens
// (province, district, road). See [SimplifyAddress].
package domain
