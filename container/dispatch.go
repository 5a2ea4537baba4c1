package container

import "floppy/fault"

// Write serializes c using its own Variant's writer. The CLI and any other
// variant-agnostic caller use this instead of naming WriteD64/WriteHFE/...
// directly.
func Write(c *Container) ([]byte, error) {
	switch c.Variant {
	case VariantD64:
		return WriteD64(c)
	case VariantG64:
		return WriteG64(c)
	case VariantSCP:
		return WriteSCP(c)
	case VariantHFE:
		return WriteHFE(c)
	case VariantT64:
		return WriteT64(c)
	case VariantJV3:
		return WriteJV3(c)
	case VariantSID:
		return WriteSID(c)
	case VariantCVT:
		return WriteCVT(c)
	default:
		return nil, fault.New(fault.Format, "container", nil)
	}
}

// Parse parses data as the named variant. VariantVSF has no writer (it's
// read-only metadata inspection, per GetCPUState), so it's valid here but
// absent from Write's switch.
func Parse(v Variant, data []byte) (*Container, error) {
	switch v {
	case VariantD64:
		return ParseD64(data)
	case VariantG64:
		return ParseG64(data)
	case VariantSCP:
		return ParseSCP(data)
	case VariantHFE:
		return ParseHFE(data)
	case VariantT64:
		return ParseT64(data)
	case VariantJV3:
		return ParseJV3(data)
	case VariantVSF:
		return ParseVSF(data)
	case VariantSID:
		return ParseSID(data)
	case VariantCVT:
		return ParseCVT(data)
	default:
		return nil, fault.New(fault.Format, "container", nil)
	}
}

// VariantFromName maps a lowercase CLI-facing format name to its Variant.
func VariantFromName(name string) (Variant, bool) {
	switch name {
	case "d64":
		return VariantD64, true
	case "g64":
		return VariantG64, true
	case "scp":
		return VariantSCP, true
	case "hfe":
		return VariantHFE, true
	case "t64":
		return VariantT64, true
	case "jv3":
		return VariantJV3, true
	case "vsf":
		return VariantVSF, true
	case "sid":
		return VariantSID, true
	case "cvt":
		return VariantCVT, true
	default:
		return VariantUnknown, false
	}
}
