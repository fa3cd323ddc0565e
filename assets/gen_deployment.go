// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build ignore

package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/f-secure-foundry/armory-encboot/assets"
)

const DeploymentFileName = "deployment_block.go"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stdout)
}

func main() {
	d := &assets.Deployment{
		KeyPage:    29,
		KeySize:    16,
		KeyShares:  1,
		ImageStart: 0x20000000,
		ImageSize:  0x78000,
	}

	copy(d.IV[:], "0123456789abcdef")

	if err := d.Validate(); err != nil {
		log.Fatal(err)
	}

	out, err := os.Create(DeploymentFileName)

	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	buf := d.Bytes()

	out.WriteString(`// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Code generated by gen_deployment.go; DO NOT EDIT.

package assets

// deploymentBlock holds the placeholder deployment block, replaced within the
// loader binary by ` + "`enc-seal fixup`" + `.
var deploymentBlock = [DeploymentSize]byte{
`)

	for i := 0; i < len(buf); i += 8 {
		var line []string

		for _, b := range buf[i : i+8] {
			line = append(line, fmt.Sprintf("0x%02x", b))
		}

		out.WriteString("\t" + strings.Join(line, ", ") + ",\n")
	}

	out.WriteString("}\n")
}
