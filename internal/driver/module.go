package driver

import (
	"context"
	"errors"
	"fmt"

	"callconv/internal/abi"
	"callconv/internal/backend/llvm"
	"callconv/internal/trace"
	"callconv/internal/types"
)

// BuildModule renders the batch as one LLVM module. For every signature
// that lowered cleanly it emits a declaration of the function, a wrapper
// "<name>.wrap" with the same physical signature that unpacks its
// parameters and forwards them to the function, and, when the signature
// lists va_reads, a reader "<name>.va" taking a va_list and one output
// pointer per read type.
//
// Signatures that failed to lower are skipped. Errors raised while
// emitting one function are joined and returned with the partial module.
func BuildModule(ctx context.Context, b *Batch) (string, error) {
	ctx, span := trace.Start(ctx, trace.ScopePass, "driver.build_module")
	e := llvm.NewEmitter(b.Session)

	var errs []error
	for _, r := range b.Results {
		if r.Err != nil || r.Lowered == nil {
			continue
		}
		if err := emitGuarded(func() error { return emitWrapper(e, r) }); err != nil {
			errs = append(errs, fmt.Errorf("%s.wrap: %w", r.Signature.Name, err))
			continue
		}
		if len(r.Signature.VAReads) == 0 {
			continue
		}
		if err := emitGuarded(func() error { return emitVAReader(ctx, e, r) }); err != nil {
			errs = append(errs, fmt.Errorf("%s.va: %w", r.Signature.Name, err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		span.End(err.Error())
	} else {
		span.End("")
	}
	return e.String(), err
}

func emitGuarded(fn func() error) (err error) {
	defer abi.RecoverInvariant(&err)
	return fn()
}

// emitWrapper defines name.wrap(params...) { return name(params...) }.
func emitWrapper(e *llvm.Emitter, r Result) error {
	sig := r.Signature
	e.Declare(sig.Name, r.Lowered)
	fe := e.BeginFunction(sig.Name+".wrap", r.Lowered)

	decls := make([]llvm.ParamDecl, len(sig.Params))
	for i := range sig.Params {
		decls[i] = llvm.ParamDecl{Name: sig.ParamNames[i]}
	}
	locals, err := llvm.EmitPrologue(fe, decls)
	if err != nil {
		return err
	}
	args := make([]llvm.RValue, len(locals))
	for i, loc := range locals {
		args[i] = fe.Load(loc.Addr, loc.Type)
	}
	rv, err := llvm.EmitCall(fe, sig.Name, r.Lowered, args)
	if err != nil {
		return err
	}
	fe.StoreReturn(rv)
	if err := llvm.EmitEpilogue(fe); err != nil {
		return err
	}
	return fe.Finish()
}

// emitVAReader defines name.va(ptr ap, ptr out0, ...) and copies each
// va_reads value fetched from ap into the matching output.
func emitVAReader(ctx context.Context, e *llvm.Emitter, r Result) error {
	sess := e.Session()
	in := sess.Types
	apTy := in.Pointer(in.Builtins().Void)

	params := []types.TypeID{apTy}
	decls := []llvm.ParamDecl{{Name: "ap"}}
	for i, ty := range r.Signature.VAReads {
		params = append(params, in.Pointer(ty))
		decls = append(decls, llvm.ParamDecl{Name: fmt.Sprintf("out%d", i)})
	}
	fi := sess.Registry.Intern(ctx, in.Builtins().Void, params)
	l, err := sess.Lower(fi, abi.DeclAttrs{NoThrow: true}, false)
	if err != nil {
		return err
	}

	fe := e.BeginFunction(r.Signature.Name+".va", l)
	locals, err := llvm.EmitPrologue(fe, decls)
	if err != nil {
		return err
	}
	ap := fe.Load(locals[0].Addr, apTy).V
	for i, ty := range r.Signature.VAReads {
		addr, err := llvm.EmitVAArg(fe, ap, ty)
		if err != nil {
			return err
		}
		out := fe.Load(locals[i+1].Addr, params[i+1]).V
		fe.Store(fe.Load(addr, ty), out, ty)
	}
	if err := llvm.EmitEpilogue(fe); err != nil {
		return err
	}
	return fe.Finish()
}
