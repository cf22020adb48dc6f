package metainf

// Kind names a kind of catalog entity.
type Kind uint8

const (
	KindDatabase Kind = iota + 1
	KindCollection
	KindDocPart
	KindField
	KindScalar
	KindIndex
	KindIndexField
	KindDocPartIndex
)

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindCollection:
		return "collection"
	case KindDocPart:
		return "doc part"
	case KindField:
		return "field"
	case KindScalar:
		return "scalar"
	case KindIndex:
		return "index"
	case KindIndexField:
		return "index field"
	case KindDocPartIndex:
		return "doc part index"
	default:
		return "unknown"
	}
}
