package vm

import (
	"fmt"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// Frame represents a stack frame for method execution.
type Frame struct {
	LocalVars    []Value
	OperandStack []Value
	SP           int
	Code         []byte
	PC           int
	Method       *Method
}

// NewFrame creates a new Frame for the given bytecode method.
func NewFrame(m *Method) *Frame {
	code := m.Code
	return &Frame{
		LocalVars:    make([]Value, code.MaxLocals),
		OperandStack: make([]Value, code.MaxStack),
		Code:         code.Code,
		Method:       m,
	}
}

// Pool returns the constant pool of the class declaring the running method.
func (f *Frame) Pool() []classfile.ConstantPoolEntry {
	if f.Method == nil || f.Method.Class.File == nil {
		return nil
	}
	return f.Method.Class.File.ConstantPool
}

// Push pushes a value onto the operand stack.
func (f *Frame) Push(v Value) {
	if f.SP >= len(f.OperandStack) {
		panic(fmt.Sprintf("operand stack overflow: SP=%d, max=%d", f.SP, len(f.OperandStack)))
	}
	f.OperandStack[f.SP] = v
	f.SP++
}

// Pop pops a value from the operand stack.
func (f *Frame) Pop() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	f.SP--
	return f.OperandStack[f.SP]
}

// Peek returns the top of the operand stack without removing it.
func (f *Frame) Peek() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	return f.OperandStack[f.SP-1]
}

// GetLocal returns the value at the given local variable index.
func (f *Frame) GetLocal(index int) Value {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	return f.LocalVars[index]
}

// SetLocal sets the value at the given local variable index.
func (f *Frame) SetLocal(index int, v Value) {
	if index < 0 || index >= len(f.LocalVars) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.LocalVars)))
	}
	f.LocalVars[index] = v
}

// ReadU8 reads a uint8 operand and advances PC.
func (f *Frame) ReadU8() uint8 {
	val := f.Code[f.PC]
	f.PC++
	return val
}

// ReadI8 reads an int8 operand and advances PC.
func (f *Frame) ReadI8() int8 {
	return int8(f.ReadU8())
}

// ReadU16 reads a uint16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadU16() uint16 {
	val := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return val
}

// ReadI16 reads an int16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadI16() int16 {
	return int16(f.ReadU16())
}
