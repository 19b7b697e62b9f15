/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package unrtext

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseFloatTriple reads the three values of an assignment such as
// Location=(X=1.5,Y=-2.0,Z=0.0). Subfield names are ignored. A value that is
// not a finite float (NaN and Inf included) becomes 0 and is reported as an Issue; its siblings are kept.
// A line without the =(a=x,b=y,c=z) shape returns ErrBadTriplet.
func ParseFloatTriple(line string) (Vec3, []Issue, error) {
	var out Vec3
	raw, ok := scanTriple(line)
	if !ok {
		return out, nil, fmt.Errorf("%w: %q", ErrBadTriplet, line)
	}
	var issues []Issue
	for i, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
			err = strconv.ErrRange
		}
		if err != nil {
			issues = append(issues, Issue{
				Kind:    IssueBadComponent,
				Message: fmt.Sprintf("component %d %q is not a finite number, using 0", i, s),
			})
			continue
		}
		out[i] = f
	}
	return out, issues, nil
}

// scanTriple locates "=(" and then three name=value pairs; the first two
// values end at ',', the last at ')'.
func scanTriple(line string) ([3]string, bool) {
	var vals [3]string
	start := strings.Index(line, "=(")
	if start < 0 {
		return vals, false
	}
	rest := line[start+2:]
	for i := range vals {
		eq := strings.IndexByte(rest, '=')
		if eq < 1 {
			return vals, false
		}
		rest = rest[eq+1:]
		term := byte(',')
		if i == len(vals)-1 {
			term = ')'
		}
		end := strings.IndexByte(rest, term)
		if end < 0 {
			return vals, false
		}
		vals[i] = rest[:end]
		rest = rest[end+1:]
	}
	return vals, true
}
