/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package unrtext

// RotationUnitsToDegrees converts Unreal rotation units, where 65536 is a
// full turn, to degrees. Equal to 0.0054931640625.
const RotationUnitsToDegrees = 360.0 / 65536.0

// RotationToDegrees converts a Pitch/Yaw/Roll triple from rotation units to degrees.
func RotationToDegrees(v Vec3) Vec3 {
	return Vec3{v[0] * RotationUnitsToDegrees, v[1] * RotationUnitsToDegrees, v[2] * RotationUnitsToDegrees}
}

// RotationFromDegrees is the inverse of RotationToDegrees.
func RotationFromDegrees(v Vec3) Vec3 {
	return Vec3{v[0] / RotationUnitsToDegrees, v[1] / RotationUnitsToDegrees, v[2] / RotationUnitsToDegrees}
}
