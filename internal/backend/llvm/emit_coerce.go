package llvm

import (
	"callconv/internal/abi"
	"callconv/internal/lltype"
)

// createCoercedLoad loads a value of type dst from src, which holds an
// object of type srcTy. When dst is larger the load goes through a
// temporary and the bytes past srcTy are undefined.
func (fe *FuncEmitter) createCoercedLoad(src Value, srcTy, dst lltype.Type) Value {
	dl := fe.dl()
	srcSize, dstSize := dl.AllocSize(srcTy), dl.AllocSize(dst)
	if srcSize == dstSize {
		return fe.load(dst, src, 1, "")
	}
	if srcSize > dstSize {
		abi.Fatal("coerced load of %s from %s loses source bits", dst, srcTy)
	}
	tmp := fe.alloca(dst, 0, "")
	v := fe.load(srcTy, src, dl.ABIAlign(srcTy), "")
	fe.store(v, tmp, 1)
	return fe.load(dst, tmp, dl.ABIAlign(dst), "")
}

// createCoercedStore stores src into dst, which holds an object of type
// dstTy. When src is larger its trailing bytes are dropped.
func (fe *FuncEmitter) createCoercedStore(src, dst Value, dstTy lltype.Type) {
	dl := fe.dl()
	srcSize, dstSize := dl.AllocSize(src.Ty), dl.AllocSize(dstTy)
	if srcSize == dstSize {
		fe.store(src, dst, 1)
		return
	}
	if srcSize < dstSize {
		abi.Fatal("coerced store of %s into %s is missing bits", src.Ty, dstTy)
	}
	tmp := fe.alloca(src.Ty, 0, "")
	fe.store(src, tmp, dl.ABIAlign(src.Ty))
	v := fe.load(dstTy, tmp, 1, "")
	fe.store(v, dst, dl.ABIAlign(dstTy))
}
