package discordbot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ichi0g0y/discord-rpg-bot/internal/combat"
	"github.com/ichi0g0y/discord-rpg-bot/internal/localdb"
	"github.com/ichi0g0y/discord-rpg-bot/internal/settings"
	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

var tierEmoji = map[types.LuckTier]string{
	types.TierCursed:  "💀",
	types.TierUnlucky: "😰",
	types.TierNormal:  "😐",
	types.TierLucky:   "😊",
	types.TierBlessed: "✨",
	types.TierDivine:  "🌟",
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RenderLuck formats a luck status.
func RenderLuck(name string, st types.LuckStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🍀 **%s's Luck Status**\n", name)
	fmt.Fprintf(&sb, "%s **%s**  Luck %d/100  Multiplier %.2fx\n", tierEmoji[st.Tier], title(string(st.Tier)), st.CurrentLuck, st.Multiplier)
	fmt.Fprintf(&sb, "Lucky Streak: %d  Unlucky Streak: %d\n", st.LuckyStreak, st.UnluckyStreak)
	fmt.Fprintf(&sb, "Total Rolls: %d  Success Rate: %.1f%%", st.TotalRolls, st.SuccessRate)
	if len(st.ActiveConditions) > 0 {
		sb.WriteString("\n⚡ Active Conditions")
		for _, c := range st.ActiveConditions {
			fmt.Fprintf(&sb, "\n• %s (%+d, %s left)", c.Label, c.Delta, c.Remaining)
		}
	}
	return sb.String()
}

// RenderReward formats coins, xp and items of a reward.
func RenderReward(r *types.RewardResult) string {
	if r == nil {
		return ""
	}
	s := fmt.Sprintf("💰 %d coins  ⭐ %d XP", r.Coins, r.XP)
	if r.LuckApplied {
		s += fmt.Sprintf("  (luck x%.2f)", r.Multiplier)
	}
	if len(r.Items) > 0 {
		s += "\n🎁 " + strings.Join(r.Items, ", ")
	}
	return s
}

func renderLevelUps(ups []combat.LevelUp) string {
	var lines []string
	for _, u := range ups {
		lines = append(lines, fmt.Sprintf("🎉 Level up! Now level %d (HP +%d, ATK +%d, DEF +%d)", u.Level, u.HP, u.Attack, u.Defense))
	}
	return strings.Join(lines, "\n")
}

func renderEntity(e types.CombatEntity) string {
	return fmt.Sprintf("%s Lv.%d  HP %d/%d", e.Name, e.Level, e.HP, e.MaxHP)
}

// RenderAdventure formats the result of an adventure.
func RenderAdventure(res *combat.AdventureResult) string {
	parts := []string{
		fmt.Sprintf("**%s** at %s", res.Outcome.Title, res.Location.Name),
		res.Outcome.Description,
		RenderReward(res.Reward),
	}
	if len(res.Items) > 0 {
		parts = append(parts, "🔍 Found: "+strings.Join(res.Items, ", "))
	}
	if s := renderLevelUps(res.LevelUps); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// RenderBattle formats the current state of a battle and the last turn.
func RenderBattle(v *BattleView) string {
	b := v.Battle
	var parts []string
	if v.Turn == nil {
		parts = append(parts, fmt.Sprintf("⚔️ A wild **%s** appears!", b.Enemy().Name))
	} else {
		parts = append(parts, strings.Join(v.Turn.Log, "\n"))
	}
	parts = append(parts, "🧍 "+renderEntity(b.Player()), "👹 "+renderEntity(b.Enemy()))

	if v.Record != nil {
		switch v.Record.Outcome {
		case types.OutcomeVictory:
			parts = append(parts, "🏆 **Victory!**")
			if r := RenderReward(b.Reward()); r != "" {
				parts = append(parts, r)
			}
		case types.OutcomeDefeat:
			parts = append(parts, "💀 **Defeat...**")
		case types.OutcomeFled:
			parts = append(parts, "🏃 **You escaped.**")
		}
	} else {
		parts = append(parts, fmt.Sprintf("Items: %d", len(b.ItemsLeft())))
	}
	if s := renderLevelUps(v.LevelUps); s != "" {
		parts = append(parts, s)
	}
	if v.Room != nil {
		parts = append(parts, RenderRoom(v.Room, v.Run))
	}
	return strings.Join(parts, "\n")
}

// RenderRoom formats one dungeon room. Monster rooms are shown by RenderBattle.
func RenderRoom(room *combat.RoomResult, run *combat.DungeonRun) string {
	var parts []string
	switch room.Encounter {
	case combat.EncounterMonster:
		if room.Battle != nil {
			parts = append(parts, fmt.Sprintf("🚪 Room %d (floor %d): a **%s** blocks the way! Use /battle to fight.", room.Room, room.Floor, room.Battle.Enemy().Name))
		}
	case combat.EncounterTreasure:
		parts = append(parts, fmt.Sprintf("🚪 Room %d (floor %d): 💎 treasure!", room.Room, room.Floor), RenderReward(room.Reward))
	case combat.EncounterTrap:
		if room.TrapDodged {
			parts = append(parts, fmt.Sprintf("🚪 Room %d (floor %d): 🪤 you dodged a trap.", room.Room, room.Floor))
		} else {
			parts = append(parts, fmt.Sprintf("🚪 Room %d (floor %d): 🪤 a trap hits you for %d damage.", room.Room, room.Floor, room.Damage))
		}
	default:
		parts = append(parts, fmt.Sprintf("🚪 Room %d (floor %d): an empty room. You rest and recover %d HP.", room.Room, room.Floor, room.Healed))
	}
	if room.Encounter != combat.EncounterMonster {
		if s := renderLevelUps(room.LevelUps); s != "" {
			parts = append(parts, s)
		}
	}

	switch room.Status {
	case combat.DungeonCompleted:
		parts = append(parts, fmt.Sprintf("🏁 **%s cleared!** The %s falls.", run.Dungeon.Name, run.Dungeon.Boss), RenderReward(room.Completion))
	case combat.DungeonFailed:
		parts = append(parts, "☠️ You collapse and are dragged out of the dungeon.")
	}
	if run != nil && run.Player != nil {
		parts = append(parts, fmt.Sprintf("HP %d/%d  Floor %d/%d", run.Player.HP, run.Player.MaxHP, run.Floor, run.Dungeon.Floors))
	}
	return strings.Join(parts, "\n")
}

// RenderProfile formats a character sheet with battle totals.
func RenderProfile(p *types.Player, stats localdb.BattleStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧙 **%s**  Level %d (%d/%d XP)\n", p.Name, p.Level, p.XP, p.MaxXP)
	fmt.Fprintf(&sb, "HP %d/%d  ATK %d  DEF %d  💰 %d\n", p.HP, p.MaxHP, p.Attack, p.Defense, p.Coins)
	fmt.Fprintf(&sb, "Adventures: %d  Dungeons: %d\n", p.AdventureCount, p.DungeonCount)
	fmt.Fprintf(&sb, "Battles: %d won / %d lost / %d fled", stats.Victories, stats.Defeats, stats.Fled)
	if len(p.Inventory) > 0 {
		fmt.Fprintf(&sb, "\n🎒 %s", strings.Join(p.Inventory, ", "))
	}
	return sb.String()
}

// RenderSettings lists settings as KEY=value lines sorted by key.
func RenderSettings(all map[string]settings.Setting) string {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v := all[k].Value
		if !all[k].HasValue {
			v = "(unset)"
		}
		lines = append(lines, k+"="+v)
	}
	return strings.Join(lines, "\n")
}
