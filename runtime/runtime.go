/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package runtime is the thin facade between the graph/allocator and a device: it only
// knows how to reserve and release a block of bytes. Kernel execution lives elsewhere
// and is out of scope for this module.
package runtime

import "k8s.io/klog/v2"

// Device tags where a Tensor's data lives. Only CPU is implemented; a real accelerator
// backend is an external collaborator (see package docs).
type Device int

const (
	CPU Device = iota
)

func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "unknown device"
	}
}

// Runtime is the facade the allocator and tensors are injected with. It owns the single
// real allocation call the allocator ever makes (see allocator.Ptr).
type Runtime struct {
	device Device
}

// New returns a Runtime bound to device.
func New(device Device) *Runtime {
	return &Runtime{device: device}
}

// Device returns the device this runtime allocates on.
func (r *Runtime) Device() Device {
	return r.device
}

// Alloc reserves n bytes on the device and returns the backing slice. For CPU this is a
// plain Go allocation; a GPU/accelerator runtime would instead call into its driver here.
func (r *Runtime) Alloc(n int) []byte {
	if r.device != CPU {
		klog.Warningf("runtime: device %s not implemented, falling back to host memory", r.device)
	}
	return make([]byte, n)
}

// Dealloc releases a block previously returned by Alloc. For CPU this is a no-op (the Go
// GC reclaims it); kept for symmetry with runtimes that must free explicitly.
func (r *Runtime) Dealloc(buf []byte) {
	_ = buf
}
