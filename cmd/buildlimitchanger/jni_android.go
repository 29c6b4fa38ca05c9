package main

import "C"

import "unsafe"

const jniVersion16 = 0x00010006

//export JNI_OnLoad
func JNI_OnLoad(vm, reserved unsafe.Pointer) C.int {
	return jniVersion16
}

//export JNI_OnUnload
func JNI_OnUnload(vm, reserved unsafe.Pointer) {
	if mod != nil {
		mod.Close()
	}
}
