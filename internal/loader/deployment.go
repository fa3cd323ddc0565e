// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package loader

import (
	"github.com/f-secure-foundry/armory-encboot/assets"
)

// Apply overrides the configuration with validated deployment parameters.
func (c *Config) Apply(d *assets.Deployment) (err error) {
	if err = d.Validate(); err != nil {
		return
	}

	c.KeyPage = int(d.KeyPage)
	c.KeySize = int(d.KeySize)
	c.KeyShares = int(d.KeyShares)
	c.Image = Region{
		Start: d.ImageStart,
		Size:  d.ImageSize,
	}
	c.IV = d.IV

	return c.Validate()
}
