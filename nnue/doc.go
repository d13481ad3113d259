/*
Package nnue implements the fully connected layers of Stockfish's NNUE
evaluation network and the chains they form.

This code is derived from Stockfish, a UCI chess playing engine.
Copyright (C) 2004-2026 The Stockfish developers (see AUTHORS file)

Stockfish is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Stockfish is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.

# Architecture

A network is a chain of layers owned by nesting: an input slice over the
transformed feature vector, then alternating affine and clipped ReLU layers,
ending in an affine layer with a single output. Each layer reports the
scratch space it and its predecessors need, so one aligned arena of
Architecture.BufferSize bytes serves a whole propagation.

The affine layers dispatch to a kernel (see package layers). The default is
the widest native assembly kernel the host supports, or the scalar reference
when none is compiled in. Kernels named "*-model" emulate other instruction
sets lane by lane in portable Go; they are slower than scalar and exist for
verification. Every kernel returns exactly the scalar reference result.

# Usage

	arch, err := nnue.NewArchitecture(512, []int{32, 32})
	if err != nil {
		log.Fatal(err)
	}
	net := nnue.NewNetwork(arch)
	if err := net.Load("net.nnue"); err != nil {
		log.Fatal(err)
	}

	eval := nnue.NewEvaluator(arch)
	score := eval.Evaluate(features)
*/
package nnue
