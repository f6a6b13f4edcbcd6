package domain

import "strconv"

// Three generations of metadata keys have shipped against the Stripe
// catalog. Reads accept all of them; writes emit only the canonical pair
// plus display fields and strip everything deprecated.
const (
	MetaSyncVariantID = "sync_variant_id"
	MetaSKU           = "sku"
	MetaVariantName   = "variant_name"
	MetaColor         = "color"
	MetaSize          = "size"

	// legacy generations, read-only
	MetaLegacyVariantID     = "printful_variant_id"
	MetaLegacyHeldVariantID = "legacy_printful_variant_id"
	MetaLegacyHeldProductID = "legacy_printful_sync_product_id"
)

// legacyVariantIDKeys in fallback priority order. printful_variant_id is
// ambiguous (it meant variant option id before it meant sync-variant id)
// so the migration holding key wins over it.
var legacyVariantIDKeys = []string{
	MetaLegacyHeldVariantID,
	MetaLegacyVariantID,
}

var deprecatedKeys = []string{
	MetaLegacyVariantID,
	MetaLegacyHeldVariantID,
	MetaLegacyHeldProductID,
}

// VariantIDFromMetadata extracts the sync-variant id, canonical key first,
// legacy keys as fallback.
func VariantIDFromMetadata(m map[string]string) (string, bool) {
	if m == nil {
		return "", false
	}
	if id, ok := m[MetaSyncVariantID]; ok && id != "" {
		return id, true
	}
	for _, key := range legacyVariantIDKeys {
		if id, ok := m[key]; ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// HasVariantIdentity reports whether any recognized variant-id key is set,
// canonical or legacy. Used for keeper selection among duplicates.
func HasVariantIdentity(m map[string]string) bool {
	_, ok := VariantIDFromMetadata(m)
	return ok
}

// CanonicalizeMetadata rewrites any generation of metadata into the
// canonical form: sync_variant_id and sku are populated (from legacy keys
// when needed) and all deprecated keys are removed. Unknown keys pass
// through untouched. The input map is not modified.
func CanonicalizeMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	if id, ok := VariantIDFromMetadata(m); ok {
		out[MetaSyncVariantID] = id
		if out[MetaSKU] == "" {
			out[MetaSKU] = id
		}
	}
	for _, key := range deprecatedKeys {
		delete(out, key)
	}
	return out
}

// MetadataUpdatePayload computes the write needed to move current
// metadata to desired. Stripe merges metadata updates, so keys being
// dropped (legacy generations in particular) must be sent with an empty
// value to actually disappear.
func MetadataUpdatePayload(current, desired map[string]string) map[string]string {
	payload := make(map[string]string, len(desired))
	for k, v := range desired {
		payload[k] = v
	}
	for k := range current {
		if _, keep := desired[k]; !keep {
			payload[k] = ""
		}
	}
	return payload
}

// CanonicalMetadataFor builds the metadata this system writes for a
// source variant: the canonical pair plus cached display fields.
func CanonicalMetadataFor(v SourceVariant) map[string]string {
	id := strconv.FormatInt(v.ID, 10)
	m := map[string]string{
		MetaSyncVariantID: id,
		MetaSKU:           id,
	}
	if v.SKU != "" {
		m[MetaSKU] = v.SKU
	}
	if v.VariantName != "" {
		m[MetaVariantName] = v.VariantName
	}
	if v.Color != "" {
		m[MetaColor] = v.Color
	}
	if v.Size != "" {
		m[MetaSize] = v.Size
	}
	return m
}
