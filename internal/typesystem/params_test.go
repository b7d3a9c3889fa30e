package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weftlang/weft/internal/ids"
)

func TestForcedParams(t *testing.T) {
	proto := ProtocolInst{Def: ids.FreshDefId(), Name: "Eq"}

	t.Run("nat consts and plain type params survive", func(t *testing.T) {
		forced := ForcedParams([]Parameter{
			TypeParam{Idx: 0, Name: "T"},
			ConstParam{Idx: 1, Name: "n", Ty: natTy()},
		})
		assert.Empty(t, forced)
	})

	t.Run("non-nat consts are forced", func(t *testing.T) {
		forced := ForcedParams([]Parameter{
			ConstParam{Idx: 0, Name: "tag", Ty: StringType{}},
			ConstParam{Idx: 1, Name: "n", Ty: natTy()},
		})
		assert.Equal(t, map[int]bool{0: true}, forced)
	})

	t.Run("protocol bounds force a type param", func(t *testing.T) {
		forced := ForcedParams([]Parameter{
			TypeParam{Idx: 0, Name: "T", Bounds: []ProtocolInst{proto}},
			TypeParam{Idx: 1, Name: "U"},
		})
		assert.Equal(t, map[int]bool{0: true}, forced)
	})

	t.Run("forced consts pull in the params their type mentions", func(t *testing.T) {
		// c's type is an array over T, and arrays are not nat, so both c
		// and T must be decided.
		forced := ForcedParams([]Parameter{
			TypeParam{Idx: 0, Name: "T"},
			ConstParam{Idx: 1, Name: "c", Ty: &ArrayType{
				Elem: BoundTypeVar{Idx: 0, Name: "T", Copyable: true},
				Len:  NatConst(2),
			}},
			TypeParam{Idx: 2, Name: "U"},
		})
		assert.Equal(t, map[int]bool{0: true, 1: true}, forced)
	})
}

func TestForcedConstParams(t *testing.T) {
	proto := ProtocolInst{Def: ids.FreshDefId(), Name: "Eq"}

	t.Run("protocol bounds stay generic for checking", func(t *testing.T) {
		forced := ForcedConstParams([]Parameter{
			TypeParam{Idx: 0, Name: "T", Bounds: []ProtocolInst{proto}},
			ConstParam{Idx: 1, Name: "n", Ty: natTy()},
		})
		assert.Empty(t, forced)
	})

	t.Run("non-nat consts and their dependencies are forced", func(t *testing.T) {
		forced := ForcedConstParams([]Parameter{
			TypeParam{Idx: 0, Name: "T"},
			ConstParam{Idx: 1, Name: "c", Ty: &ArrayType{
				Elem: BoundTypeVar{Idx: 0, Name: "T", Copyable: true},
				Len:  NatConst(2),
			}},
			ConstParam{Idx: 2, Name: "tag", Ty: StringType{}},
		})
		assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, forced)
	})
}
